// Package auth provides optional bearer-token authentication for the API.
//
// The HTTP middleware depends only on TokenValidator. The jwt subpackage
// supplies an HMAC-signed implementation and authctx carries the parsed
// claims through the request context:
//
//	svc, err := jwt.NewService(&cfg.JWT, jwt.NewClaims)
//	validator := auth.NewValidator(svc.ValidatorFunc())
//	router.Use(middleware.Auth(validator))
package auth
