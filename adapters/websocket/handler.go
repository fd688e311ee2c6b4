package websocket

import (
	"github.com/labstack/echo/v4"
)

// Handler upgrades GET /ws and serves the reader until it disconnects.
func (s *Server) Handler(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient(conn, s.handleMessage)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	client.Run()
	s.reply(client, s.state())

	<-client.Context().Done()

	return nil
}
