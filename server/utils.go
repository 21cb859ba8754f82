package server

import (
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"

	"socialnet/utils"
)

func sendJson(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(utils.ToJson(value))
}

func sendError(w http.ResponseWriter, errorCode int, message string) {
	log.Info(message)
	sendJson(w, errorCode, map[string]any{
		"error":   true,
		"message": message,
	})
}

func getQueryItem(values url.Values, key string) string {
	value := values[key]
	if len(value) == 1 {
		return value[0]
	}
	return ""
}
