package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

type lookupFunc func(key string) (string, bool)

// parseEnv overlays environment variables onto config. Unset or empty
// variables leave the current value alone.
func parseEnv(config *Config, lookup lookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	var errs []error

	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	if v, ok := get("PORT"); ok {
		if _, err := strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Errorf("PORT: %w", err))
		} else {
			config.EndpointAddrHTTP = net.JoinHostPort("", v)
		}
	}
	str("HTTP_ADDR", &config.EndpointAddrHTTP)
	str("GRPC_HEALTH_ADDR", &config.EndpointAddrGRPC)
	str("DATABASE_URL", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	dur("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	dur("REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)

	if v, ok := get("HASH_ITERATIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("HASH_ITERATIONS: %w", err))
		} else {
			config.HashIterations = n
		}
	}

	str("MINIO_ACCESS_KEY", &config.S3RootUser)
	str("MINIO_SECRET_KEY", &config.S3RootPassword)
	str("MINIO_BUCKET", &config.S3Bucket)
	str("MINIO_REGION", &config.S3Region)
	str("MINIO_ENDPOINT", &config.S3BaseEndpoint)
	dur("PRESIGN_EXPIRY", &config.PresignExpiry)

	if v, ok := get("CORS_ORIGINS"); ok {
		config.CORSOrigins = splitList(v)
	}

	str("LOG_LEVEL", &config.LogLevel)
	str("LOG_DIR", &config.LogDir)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
