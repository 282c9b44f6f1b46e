// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and JSON helpers.

# Middleware

  - WithLogging: wraps a handler with request start/completion logging
  - CORS: allows cross-origin requests from the local UI, handles preflight

# Helpers

  - JSONResponse: writes a JSON response with status code
  - ErrorResponse: writes a models.ErrorResponse
  - ParseJSONBody: decodes a request body
  - GetClientIP: client address for logging (X-Forwarded-For, X-Real-IP,
    RemoteAddr)
*/
package middleware
