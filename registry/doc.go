// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package registry owns identity records: registration and password
authentication.

Usernames match [A-Za-z0-9_]{3,}; passwords need six characters. A
registration that carries a biometric embedding runs the gate's duplicate
detection before anything is stored, so a rejected registration leaves no
partial record.

Authenticate compares exactly and returns the same ErrInvalidCredentials
for unknown usernames and wrong passwords.

Passwords are stored as given; hashing is a pending hardening step.
*/
package registry
