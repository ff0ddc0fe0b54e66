package main

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Decode structures for `perccli /cALL show all J`. Field names follow the
// vendor output; encoding/json matches keys case-insensitively, which covers
// the casing drift between firmware versions.

type showAllResponse struct {
	Controllers []json.RawMessage `json:"Controllers"`
}

type controllerBlock struct {
	CommandStatus cmdStatus        `json:"Command Status"`
	ResponseData  controllerDetail `json:"Response Data"`
}

type cmdStatus struct {
	Version     string `json:"CLI Version"`
	OS          string `json:"Operating system"`
	Controller  *int   `json:"Controller"`
	Status      string `json:"Status"`
	Description string `json:"Description"`
}

type controllerDetail struct {
	Basics  basicsInfo           `json:"Basics"`
	Version driverVersion        `json:"Version"`
	Status  controllerStatus     `json:"Status"`
	HwCfg   map[string]flexValue `json:"HwCfg"`
	PDList  []pdEntry            `json:"PD LIST"`
	VDList  []vdEntry            `json:"VD LIST"`
}

type basicsInfo struct {
	Controller *int   `json:"Controller"`
	Model      string `json:"Model"`
	Serial     string `json:"Serial Number"`
}

type driverVersion struct {
	DriverName string `json:"Driver Name"`
	Firmware   string `json:"Firmware Version"`
}

type controllerStatus struct {
	ControllerStatus string    `json:"Controller Status"`
	BBUStatus        flexValue `json:"BBU Status"`
}

type pdEntry struct {
	EIDSlt string    `json:"EID:Slt"`
	DID    int       `json:"DID"`
	State  string    `json:"State"`
	Size   string    `json:"Size"`
	Intf   string    `json:"Intf"`
	Med    string    `json:"Med"`
	Model  string    `json:"Model"`
	Temp   flexValue `json:"Temp"`
}

type vdEntry struct {
	DGVD  string `json:"DG/VD"`
	Type  string `json:"TYPE"`
	State string `json:"State"`
	Size  string `json:"Size"`
}

// flexValue holds a scalar that perccli emits inconsistently: sometimes a
// JSON number, sometimes a quoted number, sometimes a string with a unit
// suffix ("56C") or "NA". The raw token is kept and coerced on demand.
type flexValue string

func (v *flexValue) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = flexValue(strings.TrimSpace(s))
		return nil
	}
	*v = flexValue(strings.TrimSpace(string(b)))
	return nil
}

func (v flexValue) String() string { return string(v) }

func (v flexValue) isNA() bool {
	return string(v) == "" || strings.EqualFold(string(v), "NA") || strings.EqualFold(string(v), "N/A")
}

var numericPrefix = regexp.MustCompile(`^[-+]?[0-9]+(\.[0-9]+)?([eE][-+]?[0-9]+)?`)

// Float strips a trailing non-numeric unit suffix and parses the remainder,
// accepting scientific notation ("2.20315629552e+011" -> 220315629552).
func (v flexValue) Float() (float64, bool) {
	if v.isNA() {
		return 0, false
	}
	m := numericPrefix.FindString(string(v))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
