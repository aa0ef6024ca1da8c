// Package mocks holds gomock doubles for the interfaces handlers depend on.
//
// Regenerate after interface changes:
//
//	go generate ./internal/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.4.0 -package=mocks -destination=remito_store_mock.go github.com/conforma/remitos-api/internal/handlers RemitoStore
