// Package gocms translates go-cms block and widget exports into block
// instance records without importing go-cms directly. Callers decode the
// JSON snapshots emitted by go-cms into the lightweight structs here and
// convert them with InstancesFromBlockSnapshot or InstancesFromWidgetDocument.
// Each translation becomes one instance whose options layer the shared
// configuration, the translated content and any attribute overrides.
package gocms
