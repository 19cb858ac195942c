package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for domain operations
var (
	ErrDatasetNotFound = goerr.New("dataset not found")
)

// Reasons reported for records that fail validation
const (
	ReasonInvalidRecord         = "invalid_record"
	ReasonMissingDiscoveryDate  = "missing_discovery_date"
	ReasonClosedBeforeDiscovery = "closed_before_discovery"
	ReasonAsOfBeforeDiscovery   = "as_of_before_discovery"
)

// Error tags for per-record validation failures
var (
	ErrTagInvalidRecord         = goerr.NewTag(ReasonInvalidRecord)
	ErrTagMissingDiscoveryDate  = goerr.NewTag(ReasonMissingDiscoveryDate)
	ErrTagClosedBeforeDiscovery = goerr.NewTag(ReasonClosedBeforeDiscovery)
	ErrTagAsOfBeforeDiscovery   = goerr.NewTag(ReasonAsOfBeforeDiscovery)
)

// Error tags for configuration and input problems
var (
	ErrTagInvalidConfig = goerr.NewTag("invalid_config")
	ErrTagInvalidInput  = goerr.NewTag("invalid_input")
)
