package handler

import "github.com/go-faster/jx"

func encodeError(e *jx.Encoder, code int, message string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
	})
}
