// Package blockwright turns visual block programs into per-tenant
// event handlers.
//
// The block catalog and compiler live in 'catalog' and 'compiler', the
// event machinery in 'dispatch' and 'sandbox', and the daemon in
// 'cmd/blockd'.
package blockwright
