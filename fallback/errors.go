package fallback

import (
	"net/http"

	"github.com/KOMKZ/go-aegis-framework/errcode"
)

// ModuleCode is the fallback store module code.
const (
	ModuleCode = 12
)

// Business error codes, layered as ModuleCode*10000 + code.
const (
	ErrCodeEntryNotFound = 1
	ErrCodeStoreGet      = 2
	ErrCodeStoreSet      = 3
	ErrCodeStoreDelete   = 4
	ErrCodeSerialize     = 5
	ErrCodeConfigInvalid = 6
)

var (
	// ErrEntryNotFound no fallback entry exists for the requested id
	ErrEntryNotFound = errcode.New(
		ModuleCode, ErrCodeEntryNotFound,
		"fallback", "error.fallback.entry_not_found", "fallback entry not found",
		http.StatusNotFound,
	)

	// ErrStoreGet backend read failed
	ErrStoreGet = errcode.New(
		ModuleCode, ErrCodeStoreGet,
		"fallback", "error.fallback.store_get", "fallback store read failed",
		http.StatusInternalServerError,
	)

	// ErrStoreSet backend write failed
	ErrStoreSet = errcode.New(
		ModuleCode, ErrCodeStoreSet,
		"fallback", "error.fallback.store_set", "fallback store write failed",
		http.StatusInternalServerError,
	)

	// ErrStoreDelete backend delete failed
	ErrStoreDelete = errcode.New(
		ModuleCode, ErrCodeStoreDelete,
		"fallback", "error.fallback.store_delete", "fallback store delete failed",
		http.StatusInternalServerError,
	)

	// ErrSerialize entry marshal/unmarshal failed
	ErrSerialize = errcode.New(
		ModuleCode, ErrCodeSerialize,
		"fallback", "error.fallback.serialize", "fallback entry serialization failed",
		http.StatusInternalServerError,
	)

	// ErrConfigInvalid bad fallback configuration
	ErrConfigInvalid = errcode.New(
		ModuleCode, ErrCodeConfigInvalid,
		"fallback", "error.fallback.config_invalid", "fallback config invalid",
		http.StatusInternalServerError,
	)
)
