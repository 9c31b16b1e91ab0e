// Package http is the JSON transport of the imghost image broker.
//
// # Routes
//
//	GET    /health                   liveness
//	GET    /ready                    pings the metadata index, 503 when unreachable
//	GET    /metrics                  Prometheus metrics, when enabled
//	POST   /api/v1/dev/keys          creates an owner and returns an API key (dev only)
//	POST   /api/v1/upload/request    starts an upload, returns a presigned upload URL
//	POST   /api/v1/upload/complete   records a finished upload (201)
//	GET    /api/v1/me/images         the caller's gallery, ?limit=1..200
//	GET    /api/v1/image/{id}        302 to a time-bounded download URL
//	DELETE /api/v1/image/{id}        removes an image the caller owns
//	GET    /objects/*                local object store reads (presigned)
//	PUT    /objects/*                local object store writes (presigned)
//
// # Authentication
//
// API routes take an API key in the X-API-Key header or as a Bearer token.
// AuthMiddleware resolves it through an IdentityResolver and stores the
// owner id in the request context. The owner is never read from a request
// body.
//
// The /objects routes exist only when the server is its own object store.
// They are guarded by SignatureMiddleware, which checks AWS Signature V4
// presigned URLs issued by the filesystem store.
//
// # Errors
//
// Every error is written as
//
//	{"error": {"code": "not_found", "message": "Image not found"}}
//
// HandleError maps the imghost sentinel errors onto status codes.
package http
