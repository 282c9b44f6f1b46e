// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

Every setting is a flag with an environment-variable fallback:

  - PORT (-p): server port (default: 3342)
  - DATABASE_URL (-d): postgres URL or sqlite path (default: ballot-gate.db)
  - DATABASE_TYPE (-t): "sqlite" (default) or "postgres"
  - ADMIN_USERNAME (--admin-user): admin login (default: admin)
  - ADMIN_PASSWORD (--admin-pass): admin password (default: admin123)
  - FACE_MATCH_THRESHOLD (--face-threshold): max embedding distance counted
    as a match (default: 0.55)
  - EMBEDDING_DIM (--embedding-dim): biometric embedding width (default: 128)
  - CAPTURE_ATTEMPTS (--capture-attempts): face capture polling budget
    (default: 10)
  - CAPTURE_INTERVAL_MS (--capture-interval-ms): delay between capture
    attempts (default: 500)
  - REMEMBER_LOGIN (--remember-login): persist the last logged-in identity
    across restarts (default: off)

The admin credential pair is a deliberate placeholder for a real
access-control mechanism; the defaults exist so a local single-user install
works out of the box, and any shared deployment must override them.
*/
package cliparse
