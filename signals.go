package limpet

import "github.com/zoobzio/capitan"

// Signals for upload lifecycle events.
var (
	MarkCompleted    = capitan.NewSignal("limpet.mark.completed", "Entity force-marked for update")
	ProcessStarted   = capitan.NewSignal("limpet.process.started", "Upload processing initiated")
	ProcessCompleted = capitan.NewSignal("limpet.process.completed", "Upload processing succeeded")
	ProcessFailed    = capitan.NewSignal("limpet.process.failed", "Upload processing failed")
	RemoveCompleted  = capitan.NewSignal("limpet.remove.completed", "Obsolete file removed")
	RemoveFailed     = capitan.NewSignal("limpet.remove.failed", "Obsolete file removal failed")
)

// Field keys for event extraction.
var (
	FieldEntity      = capitan.NewStringKey("entity")
	FieldAction      = capitan.NewStringKey("action")
	FieldFile        = capitan.NewStringKey("file")
	FieldPath        = capitan.NewStringKey("path")
	FieldContentType = capitan.NewStringKey("content_type")
	FieldSize        = capitan.NewInt64Key("size")
	FieldError       = capitan.NewErrorKey("error")
	FieldDuration    = capitan.NewDurationKey("duration")
)
