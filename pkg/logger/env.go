package logger

import (
	"os"
	"strings"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

var envAliases = map[string]Env{
	"prod":           EnvProd,
	"production":     EnvProd,
	"stage":          EnvStage,
	"staging":        EnvStage,
	"preprod":        EnvStage,
	"pre-production": EnvStage,
}

// ParseEnv: всё неизвестное считается dev.
func ParseEnv(raw string) Env {
	if e, ok := envAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return e
	}
	return EnvDev
}

func DetectEnv() Env {
	return ParseEnv(os.Getenv("APP_ENV"))
}

// defaultBackend: в dev читаем логи глазами, дальше их читает сборщик.
func (e Env) defaultBackend() Backend {
	if e == EnvDev {
		return BackendStd
	}
	return BackendZap
}
