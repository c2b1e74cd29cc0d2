package controllers

import (
	"net/http"

	"github.com/planventa/planventa/pkg/httpapi"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	_ = httpapi.WriteJSON(w, status, payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, meta map[string]string) {
	_ = httpapi.WriteError(w, status, code, message, meta)
}
