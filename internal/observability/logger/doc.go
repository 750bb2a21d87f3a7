// Package logger provee el logger zap del servicio con scoping por contexto.
//
//   - Singleton: una sola instancia inicializada con Init() en main.
//   - Context scoping: cada request lleva un logger "scoped" (request_id, method, path)
//     que los services recuperan con From(ctx).
//   - Entornos: "dev" usa consola con colores, "prod" usa JSON.
//
// Uso:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "cachegate"})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Component("cache"))
//	log.Warn("cluster unreachable, serving from fallback", logger.Endpoint(ep.String()))
package logger
