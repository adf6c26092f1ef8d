package service

import (
	"context"
	"errors"
	"net"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/gorilla/websocket"
)

type wsData struct {
	t   int
	msg []byte
}

// readWebSocket pumps incoming frames into a channel until the connection
// drops or the context is done.
func readWebSocket(ctx context.Context, in *websocket.Conn) <-chan wsData {
	resCh := make(chan wsData)
	go func() {
		defer close(resCh)
		defer goapp.Log.Debug().Msg("read routine ended")
		for {
			mType, message, err := in.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) ||
					errors.Is(err, net.ErrClosed) {
					goapp.Log.Info().Msg("connection closed")
					return
				}
				goapp.Log.Error().Err(err).Send()
				return
			}
			select {
			case resCh <- wsData{t: mType, msg: message}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return resCh
}
