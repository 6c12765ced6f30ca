// Package grpc provides the gRPC API: the standard grpc.health.v1 service,
// reporting SERVING for the runner until it starts shutting down.
package grpc
