package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

var errMalformedOutput = errors.New("malformed perccli output")

type healthState int

const (
	healthUnknown healthState = iota
	healthGood
	healthNotGood
)

// normalizeStatus maps a vendor status string against the keywords that mean
// healthy for that entity. Anything unrecognized is not-good, never an error.
func normalizeStatus(s string, good ...string) healthState {
	if s == "" {
		return healthUnknown
	}
	for _, g := range good {
		if strings.EqualFold(s, g) {
			return healthGood
		}
	}
	return healthNotGood
}

func (h healthState) gauge() float64 {
	if h == healthGood {
		return 1
	}
	return 0
}

// ControllerReport is the normalized view of one RAID controller, built fresh
// per scrape and discarded after serialization.
type ControllerReport struct {
	Index         int
	Model         string
	Serial        string
	Firmware      string
	DriverName    string
	Status        healthState
	Temperature   *float64
	Drives        []PhysicalDrive
	VirtualDrives []VirtualDrive
	BBU           *BatteryBackupUnit
}

type PhysicalDrive struct {
	Path        string // "/c0/e32/s2"
	Status      healthState
	Temperature *float64
	SMART       []SMARTAttribute
}

type VirtualDrive struct {
	ID     string // "DG0/VD0"
	Status healthState
}

type BatteryBackupUnit struct {
	Healthy bool
}

type SMARTAttribute struct {
	Name  string
	Value float64
}

func isMegaRAID(driver string) bool {
	return driver == "megaraid_sas" || driver == "lsi-mr3"
}

// extractJSON locates the JSON document inside raw command output, which may
// carry banner text before or after the payload.
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON payload found", errMalformedOutput)
	}
	return raw[start : end+1], nil
}

// parseReport decodes perccli "show all" output into normalized controller
// reports. A malformed controller block is skipped and counted rather than
// aborting the rest of the document.
func parseReport(raw string) ([]ControllerReport, int, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, 0, err
	}

	var doc showAllResponse
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errMalformedOutput, err)
	}
	if len(doc.Controllers) == 0 {
		return nil, 0, fmt.Errorf("%w: no controllers in output", errMalformedOutput)
	}

	var (
		reports []ControllerReport
		skipped int
		seen    = make(map[int]bool)
	)
	for i, blk := range doc.Controllers {
		var ctrl controllerBlock
		if err := json.Unmarshal(blk, &ctrl); err != nil {
			log.Warnf("skipping malformed controller section %d: %v", i, err)
			skipped++
			continue
		}
		rep, ok := buildReport(ctrl)
		if !ok {
			log.Warnf("skipping controller section %d: no controller index", i)
			skipped++
			continue
		}
		if seen[rep.Index] {
			log.Warnf("skipping duplicate controller index %d", rep.Index)
			skipped++
			continue
		}
		seen[rep.Index] = true
		reports = append(reports, rep)
	}
	return reports, skipped, nil
}

func buildReport(ctrl controllerBlock) (ControllerReport, bool) {
	data := ctrl.ResponseData

	// The controller index moved between Basics and Command Status across
	// firmware versions.
	idx := data.Basics.Controller
	if idx == nil {
		idx = ctrl.CommandStatus.Controller
	}
	if idx == nil {
		return ControllerReport{}, false
	}

	rep := ControllerReport{
		Index:      *idx,
		Model:      data.Basics.Model,
		Serial:     data.Basics.Serial,
		Firmware:   data.Version.Firmware,
		DriverName: data.Version.DriverName,
	}

	// SAS HBAs (mpt3sas) report "OK" where MegaRAID reports "Optimal".
	if rep.DriverName == "mpt3sas" {
		rep.Status = normalizeStatus(data.Status.ControllerStatus, "OK")
	} else {
		rep.Status = normalizeStatus(data.Status.ControllerStatus, "Optimal")
	}
	rep.Temperature = controllerTemperature(data.HwCfg)

	if isMegaRAID(rep.DriverName) {
		rep.Drives = buildDrives(rep.Index, data.PDList)
		rep.VirtualDrives = buildVirtualDrives(data.VDList)
		rep.BBU = buildBBU(data.Status.BBUStatus)
	}
	return rep, true
}

// The spelling of the ROC temperature key has varied across firmware
// releases.
var rocTempKeys = []string{
	"ROC temperature(Degree Celcius)",
	"ROC temperature(Degree Celsius)",
}

func controllerTemperature(hwcfg map[string]flexValue) *float64 {
	for _, key := range rocTempKeys {
		v, ok := lookupKey(hwcfg, key)
		if !ok {
			continue
		}
		if f, ok := v.Float(); ok {
			return &f
		}
		log.Warnf("uncoercible controller temperature %q", v)
	}
	return nil
}

// lookupKey is a case-insensitive map lookup, exact match first.
func lookupKey(m map[string]flexValue, key string) (flexValue, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func buildDrives(controller int, pds []pdEntry) []PhysicalDrive {
	var (
		drives []PhysicalDrive
		seen   = make(map[string]bool)
	)
	for _, pd := range pds {
		parts := strings.SplitN(pd.EIDSlt, ":", 2)
		if len(parts) != 2 {
			log.Warnf("skipping drive with unparsable slot %q", pd.EIDSlt)
			continue
		}
		path := fmt.Sprintf("/c%d/e%s/s%s", controller, parts[0], parts[1])
		if seen[path] {
			log.Warnf("skipping duplicate drive %s", path)
			continue
		}
		seen[path] = true

		drive := PhysicalDrive{
			Path:   path,
			Status: normalizeStatus(pd.State, "Onln", "Online"),
		}
		if !pd.Temp.isNA() {
			if f, ok := pd.Temp.Float(); ok {
				drive.Temperature = &f
			} else {
				log.Warnf("uncoercible temperature %q for drive %s", pd.Temp, path)
			}
		}
		drives = append(drives, drive)
	}
	return drives
}

func buildVirtualDrives(vds []vdEntry) []VirtualDrive {
	var out []VirtualDrive
	for _, vd := range vds {
		parts := strings.SplitN(vd.DGVD, "/", 2)
		if len(parts) != 2 {
			log.Warnf("skipping virtual drive with unparsable position %q", vd.DGVD)
			continue
		}
		out = append(out, VirtualDrive{
			ID:     fmt.Sprintf("DG%s/VD%s", parts[0], parts[1]),
			Status: normalizeStatus(vd.State, "Optl", "Optimal"),
		})
	}
	return out
}

// buildBBU interprets the BBU Status field, which is a numeric code on most
// firmware (0 good, 8 charging, 4096 good) and "NA" when no battery is
// fitted. Absent battery means no report entry at all.
func buildBBU(v flexValue) *BatteryBackupUnit {
	if v.isNA() {
		return nil
	}
	if f, ok := v.Float(); ok {
		return &BatteryBackupUnit{Healthy: f == 0 || f == 8 || f == 4096}
	}
	return &BatteryBackupUnit{Healthy: strings.EqualFold(v.String(), "Healthy")}
}
