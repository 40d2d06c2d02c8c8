// Package domain defines the core domain models for bunda-cli.
//
// Domain models are plain values without IO dependencies. This package contains:
//
//   - User: the parent account profile returned by the backend
//   - Auth DTOs: login/register/profile requests and responses
//   - Errors: the tagged error taxonomy shared by the API client,
//     the token store and the session core
package domain
