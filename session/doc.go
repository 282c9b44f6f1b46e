// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session tracks the process-wide current identity and admin flag.

The ledger assumes a single tab of control, so there is exactly one
session. It is transient across restarts except for the optional remember
marker: with RememberLogin enabled, the last logged-in identity persists
through the store and Restore reinstates it at startup; Logout clears it.

Authentication is not this package's job - the registry (users) and the
configured admin pair (admin) decide who may log in; the manager only
records who is currently acting.
*/
package session
