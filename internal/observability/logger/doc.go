// Package logger es el logger zap del user store y su CLI.
//
//   - Global: Init una vez con la config; L, Named y With lo usan.
//   - Por contexto: la CLI guarda su logger con ToContext y el store lo
//     recupera con From, así los errores de escritura salen con los campos del
//     comando (driver, user_name de un import, ...). Scope suma campos al ctx.
//   - Entornos: "dev" consola con colores, "prod" JSON, "test" descarta todo.
//     Siempre a stderr.
//
// Uso:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	ctx = logger.Scope(ctx, logger.UserName(name))
//	logger.From(ctx).Warn("write rejected", logger.Op("create"), logger.Code(11000))
package logger
