// Package testutil contains helper builders and fixtures used across tests
// to reduce boilerplate when constructing transactions, gateway completions
// and scripted conversations. These helpers are intentionally minimal and
// not intended for production usage.
package testutil
