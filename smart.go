package main

import (
	"encoding/hex"
	"fmt"
	"regexp"
)

// perccli `show smart` dumps SMART data as a raw hex blob of 12-byte
// attribute blocks: byte 0 is the attribute ID, bytes 5-10 the raw value in
// little-endian order. The remaining bytes (flags, normalized value, worst)
// are not exposed as metrics.

var smartAttributeNames = map[byte]string{
	0x01: "raw_read_error_rate",
	0x03: "spin_up_time",
	0x04: "start_stop_count",
	0x05: "reallocated_sector_count",
	0x07: "seek_error_rate",
	0x09: "power_on_hours",
	0x0C: "power_cycle_count",
	0x53: "initial_bad_block_count",
	0xB1: "wear_leveling_count",
	0xB3: "used_reserved_block_count_total",
	0xB5: "program_fail_count_total",
	0xB6: "erase_fail_count_total",
	0xB7: "runtime_bad_block",
	0xBB: "uncorrectable_error_count",
	0xBE: "airflow_temperature_celsius",
	0xC2: "temperature_celsius",
	0xC3: "hardware_ecc_recovered",
	0xC4: "reallocation_event_count",
	0xC6: "uncorrectable_sector_count",
	0xC7: "udma_crc_error_count",
	0xE6: "g_sense_error_rate",
	0xE7: "ssd_life_left",
	0xEB: "por_recovery_count",
	0xF1: "total_host_writes",
	0xF2: "total_host_reads",
}

var smartBlobRe = regexp.MustCompile(`Smart Data Info[^=]*= ?\r?\n([0-9a-fA-F \r\n]+)`)

// extractSMARTBlob pulls the hex dump out of `show smart` output. Empty when
// the drive reports no SMART section.
func extractSMARTBlob(out string) string {
	m := smartBlobRe.FindStringSubmatch(out)
	if m == nil {
		return ""
	}
	return m[1]
}

// parseSMARTBlob decodes the attribute blocks of a SMART hex dump. A
// malformed blob yields whatever attributes decoded cleanly, possibly none.
func parseSMARTBlob(blob string) []SMARTAttribute {
	var digits []byte
	for _, c := range blob {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
			digits = append(digits, byte(c))
		}
	}
	if len(digits)%2 != 0 {
		digits = digits[:len(digits)-1]
	}
	data := make([]byte, len(digits)/2)
	if _, err := hex.Decode(data, digits); err != nil {
		return nil
	}

	var attrs []SMARTAttribute
	for i := 0; i+12 <= len(data); {
		id := data[i]
		if id == 0x00 {
			// Padding between attribute blocks, step over it.
			i++
			continue
		}
		block := data[i : i+12]

		var raw uint64
		for j := 10; j >= 5; j-- {
			raw = raw<<8 | uint64(block[j])
		}
		switch id {
		case 0xBE:
			// Airflow temperature keeps the reading in the first raw byte.
			raw = uint64(block[5])
		case 0xC2:
			// Temperature keeps the Celsius reading in the lowest raw byte.
			raw = uint64(block[10])
		}

		name, ok := smartAttributeNames[id]
		if !ok {
			name = fmt.Sprintf("unknown_%d", id)
		}
		attrs = append(attrs, SMARTAttribute{Name: name, Value: float64(raw)})
		i += 12
	}
	return attrs
}
