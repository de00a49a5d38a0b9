// Package http serves the expense page and its htmx partials.
//
// This file holds a small builder for htmx responses: status, HX-Trigger
// events and an HTML body.

package http

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"gastos/internal/core"
)

// Events raised through HX-Trigger.
const (
	EventExpensesChanged = "gastos:alterados"
	EventGroupsChanged   = "grupos:alterados"
	EventNotification    = "notificacao"
)

type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds an event to the HX-Trigger header. data may be nil.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	if data == nil {
		data = struct{}{}
	}
	b.triggers[name] = data
	return b
}

// TriggerExpensesChanged tells listeners the listing for p was reloaded.
func (b *HTMXResponseBuilder) TriggerExpensesChanged(p core.Period) *HTMXResponseBuilder {
	return b.Trigger(EventExpensesChanged, map[string]string{"periodo": p.String()})
}

func (b *HTMXResponseBuilder) TriggerGroupsChanged() *HTMXResponseBuilder {
	return b.Trigger(EventGroupsChanged, nil)
}

// NotificationType is the style of a toast notification.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string) *HTMXResponseBuilder {
	return b.Trigger(EventNotification, map[string]string{
		"tipo":     string(kind),
		"mensagem": message,
	})
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html []byte) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = html
	return b
}

// Template renders name into the body. A render failure turns the response
// into a 500 and is returned to the caller for logging.
func (b *HTMXResponseBuilder) Template(t *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		b.Status(http.StatusInternalServerError).BodyHTML([]byte(`<div class="erro">Erro ao renderizar a página</div>`))
		return err
	}
	b.BodyHTML(buf.Bytes())
	return nil
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse is an escaped error fragment with the given status.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML([]byte(`<div class="erro">` + template.HTMLEscapeString(message) + `</div>`))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
