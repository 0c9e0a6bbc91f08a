package server

import (
	"encoding/json"
	"net/http"
)

// Response messages
const (
	MsgReadingCreated   = "Leitura registrada com sucesso"
	MsgOK               = "OK"
	MsgDatabaseError    = "Erro no banco de dados"
	MsgInternalError    = "Erro interno do servidor"
	MsgNotFound         = "Recurso não encontrado"
	MsgMethodNotAllowed = "Método não permitido"
	MsgUnavailable      = "Serviço indisponível"
)

// Envelope is the body of every API response
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// ListData is the data of list responses
type ListData struct {
	Total int         `json:"total"`
	Data  interface{} `json:"data"`
}

// writeResponse writes the envelope with status. A nil data is sent as {}.
func (s *HTTPServer) writeResponse(w http.ResponseWriter, status int, success bool, data interface{}, message string) {
	if data == nil {
		data = struct{}{}
	}
	s.writeJSON(w, status, Envelope{Success: success, Data: data, Message: message})
}

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}
