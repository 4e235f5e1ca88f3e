package badger

// Key namespace
// =============
//
// One namespace prefix keeps registry entries separate from any future
// data sharing the database:
//
//	Data Type        Prefix  Key Format                            Value
//	-----------------------------------------------------------------------
//	Registry entry   "r:"    r:<domain>\x00<parentURI>\x00<segment>  child URI
//
// The 0x00 separator cannot occur in domain paths, identifiers or link
// names, so key boundaries are unambiguous and parent-level prefix
// scans (r:<domain>\x00<parentURI>\x00) select exactly one bucket.

const keyPrefix = "r:"

const sep = "\x00"

func entryKey(domain, parentURI, segment string) []byte {
	return []byte(keyPrefix + domain + sep + parentURI + sep + segment)
}

func parentPrefix(domain, parentURI string) []byte {
	return []byte(keyPrefix + domain + sep + parentURI + sep)
}

func domainPrefix(domain string) []byte {
	return []byte(keyPrefix + domain + sep)
}
