package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanResponse resume uma varredura concluída
// @Description Resultado agregado de uma varredura
type ScanResponse struct {
	Investigation *Investigation        `json:"investigation"`
	Progress      InvestigationProgress `json:"progress"`
}

// AsyncScanResponse confirma o enfileiramento de uma varredura
type AsyncScanResponse struct {
	InvestigationID uuid.UUID `json:"investigation_id"`
	Depth           DepthTier `json:"depth" example:"COMPLETA"`
	ProgressURL     string    `json:"progress_url" example:"/api/v1/investigations/{id}/progress"`
}

// HealthResponse representa resposta do health check
type HealthResponse struct {
	Status    string                 `json:"status" example:"healthy"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version" example:"1.0.0"`
	Services  map[string]ServiceInfo `json:"services"`
	Uptime    string                 `json:"uptime" example:"2h30m45s"`
}

// ServiceInfo representa a saúde de uma dependência
type ServiceInfo struct {
	Status    string    `json:"status" example:"healthy"`
	LastCheck time.Time `json:"last_check"`
	Error     string    `json:"error,omitempty"`
}
