package models

import "time"

// WasteType is the category reported by the classifier
type WasteType string

const (
	WasteOrganic    WasteType = "organic"
	WasteRecyclable WasteType = "recyclable"
	WasteHazardous  WasteType = "hazardous"
)

// WasteTypes lists every category the classifier can emit
var WasteTypes = []WasteType{WasteOrganic, WasteRecyclable, WasteHazardous}

// Valid reports whether t is one of the known categories
func (t WasteType) Valid() bool {
	for _, known := range WasteTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Status is the coarse fill state of a bin
type Status string

const (
	StatusEmpty   Status = "empty"
	StatusPartial Status = "partial"
	StatusFull    Status = "full"
)

// BinStatus is the latest known state of one bin, overwritten every cycle
type BinStatus struct {
	HouseID     string `json:"houseId"`
	FillLevel   int    `json:"fillLevel"`
	LastUpdated string `json:"lastUpdated"`
	Status      Status `json:"status"`
}

// WasteLogEntry is an immutable record of one sampled disposal event
type WasteLogEntry struct {
	HouseID      string    `json:"houseId"`
	WasteType    WasteType `json:"wasteType"`
	Weight       float64   `json:"weight"`
	Timestamp    string    `json:"timestamp"`
	FillLevel    int       `json:"fillLevel"`
	MLConfidence int       `json:"mlConfidence"`
}

// Cycle is the outcome of one sample-derive-publish pass, as kept in the local journal
type Cycle struct {
	ID        string
	SampledAt time.Time
	Status    BinStatus
	Log       WasteLogEntry
	LogKey    string // key assigned by the remote store
	Published bool
	Error     string
}
