package http

import (
	"errors"

	"stop-game-be/internal/service/dto"
	"stop-game-be/internal/service/errs"
	"stop-game-be/internal/state"

	"github.com/kataras/iris/v12"
)

func GetRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		code := ctx.Params().Get("code")

		room, err := appState.RoomSvc.RoomInfo(ctx.Request().Context(), code)
		if err != nil {
			status := iris.StatusInternalServerError
			if errors.Is(err, errs.ErrRoomNotFound) {
				status = iris.StatusNotFound
			}

			ctx.StopWithJSON(status, iris.Map{
				"error_kind":    errs.KindOf(err),
				"error_message": err.Error(),
			})
			return
		}

		ctx.JSON(dto.RoomResponse{Room: room})
	}
}

func Health(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"status": "ok",
			"rooms":  appState.RoomSvc.RoomCount(),
		})
	}
}
