package scanner

import "errors"

var (
	ErrInitialization   = errors.New("bluetooth initialization failed")
	ErrNotInitialized   = errors.New("bluetooth not initialized")
	ErrPermissionDenied = errors.New("bluetooth permission denied")
	ErrScanStart        = errors.New("scan start failed")
	ErrScanStop         = errors.New("scan stop failed")
	ErrDiscoveryActive  = errors.New("discovery already in progress")
)
