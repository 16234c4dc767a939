package session

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// committingWriter commits the session and writes its cookie right before
// the first byte of the response goes out.
type committingWriter struct {
	gin.ResponseWriter
	sm        *Manager
	req       *http.Request
	log       zerolog.Logger
	committed bool
}

func (w *committingWriter) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *committingWriter) WriteHeaderNow() {
	w.commit()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *committingWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *committingWriter) WriteString(s string) (int, error) {
	w.commit()
	return w.ResponseWriter.WriteString(s)
}

func (w *committingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

func (w *committingWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true

	ctx := w.req.Context()
	switch w.sm.Status(ctx) {
	case scs.Modified:
		token, expiry, err := w.sm.Commit(ctx)
		if err != nil {
			w.log.Error().Err(err).Msg("failed to commit session")
			return
		}
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
	}
	w.ResponseWriter.Header().Add("Vary", "Cookie")
}

// SessionLoadSave returns a Gin middleware that loads the session into the
// request context and saves it when the response is written. It must run
// before any handler touching the session.
func (sm *Manager) SessionLoadSave(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			logger.Error().Err(err).Msg("failed to load session")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		w := &committingWriter{
			ResponseWriter: c.Writer,
			sm:             sm,
			req:            c.Request,
			log:            logger,
		}
		c.Writer = w

		c.Next()

		w.commit()
	}
}
