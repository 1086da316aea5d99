package api

import (
	"log"
	"net/http"
	"time"
)

// statusWriter records the status code and byte count a handler produced.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// loggingMiddleware logs every status request and turns handler panics into
// 500s so a bad request cannot take the run down with it.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("http panic method=%s path=%s err=%v", r.Method, r.URL.Path, rec)
				if sw.status == 0 {
					http.Error(sw, "internal server error", http.StatusInternalServerError)
				}
			}
			log.Printf("http method=%s path=%s status=%d bytes=%d dur=%dms",
				r.Method, r.URL.RequestURI(), sw.status, sw.bytes, time.Since(start).Milliseconds())
		}()

		next.ServeHTTP(sw, r)
	})
}
