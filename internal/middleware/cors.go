package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// corsPolicy 反馈页面可能由其他来源托管，允许任意来源访问
var corsPolicy = cors.New(cors.Options{
	AllowedOrigins:   []string{"*"},
	AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	AllowedHeaders:   []string{"*"},
	AllowCredentials: false,
	MaxAge:           300,
})

// CORS 跨域中间件
func CORS(next http.Handler) http.Handler {
	return corsPolicy.Handler(next)
}
