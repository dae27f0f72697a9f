package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates the TXT records for a published service.
func EncodeTXT(info *ServiceInfo) TXTRecordMap {
	return TXTRecordMap{
		TXTKeyDataPort: strconv.FormatUint(uint64(info.DataPort), 10),
	}
}

// DecodeDataPort extracts the data port from TXT records.
func DecodeDataPort(txt TXTRecordMap) (uint16, error) {
	s, ok := txt[TXTKeyDataPort]
	if !ok {
		return 0, ErrMissingDataPort
	}
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDataPort, s)
	}
	return uint16(port), nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// TXTRecordsToBytes converts a TXTRecordMap to the byte-slice form used by avahi.
func TXTRecordsToBytes(txt TXTRecordMap) [][]byte {
	strs := TXTRecordsToStrings(txt)
	result := make([][]byte, len(strs))
	for i, s := range strs {
		result[i] = []byte(s)
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return ErrEmptyInstanceName
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
