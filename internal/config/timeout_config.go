package config

import "time"

// TimeoutConfig contém os timeouts padrão da aplicação
type TimeoutConfig struct {
	// Timeouts do servidor HTTP
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Timeout de cada consulta a um provedor, incluindo as tentativas
	ProviderQueryTimeout time.Duration

	// Timeout do cliente HTTP dos adaptadores (por tentativa)
	HTTPClientTimeout time.Duration

	// Timeout da chamada ao serviço de análise
	AnalysisTimeout time.Duration

	// Tempo máximo para drenar a fila de tarefas no shutdown
	ShutdownTimeout time.Duration
}

// DefaultTimeoutConfig retorna a configuração padrão de timeouts
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		ServerReadTimeout:  30 * time.Second,
		ServerWriteTimeout: 120 * time.Second, // varreduras síncronas podem demorar
		ServerIdleTimeout:  300 * time.Second,

		ProviderQueryTimeout: 30 * time.Second,
		HTTPClientTimeout:    15 * time.Second,
		AnalysisTimeout:      60 * time.Second,
		ShutdownTimeout:      30 * time.Second,
	}
}
