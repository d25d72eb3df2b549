// Package gate decides which route class a session may reach from its
// authentication state and cached subscription snapshot, and owns the
// session-scoped snapshot cache with explicit refresh.
package gate
