package trace

import "net/http"

// Middleware attaches a trace to every control request, continuing one supplied
// in the request headers, and echoes the trace id back in the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := fromHeaders(r.Header)
		w.Header().Set(TraceIDKey, tc.TraceID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}

func fromHeaders(h http.Header) Context {
	tc := Context{
		TraceID:      h.Get(TraceIDKey),
		SpanID:       newSpanID(),
		ParentSpanID: h.Get(SpanIDKey),
	}
	if tc.TraceID == "" {
		tc.TraceID = newTraceID()
		tc.ParentSpanID = ""
	}
	return tc
}
