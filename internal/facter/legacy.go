package facter

import (
	"maps"
	"strings"
)

// LegacyAliases maps a pre-structured, flat fact name to the dotted path of
// the structured fact holding the same data. It mirrors the legacy fact
// list shipped with facter 4.
//
//nolint:gochecknoglobals // Reference data.
var LegacyAliases = map[string]string{
	"architecture":              "os.architecture",
	"hardwaremodel":             "os.hardware",
	"operatingsystem":           "os.name",
	"osfamily":                  "os.family",
	"operatingsystemrelease":    "os.release.full",
	"operatingsystemmajrelease": "os.release.major",
	"lsbdistid":                 "os.distro.id",
	"lsbdistcodename":           "os.distro.codename",
	"lsbdistdescription":        "os.distro.description",
	"lsbdistrelease":            "os.distro.release.full",
	"lsbmajdistrelease":         "os.distro.release.major",
	"selinux":                   "os.selinux.enabled",
	"selinux_enforced":          "os.selinux.enforced",
	"selinux_policyversion":     "os.selinux.policy_version",
	"fqdn":                      "networking.fqdn",
	"hostname":                  "networking.hostname",
	"domain":                    "networking.domain",
	"ipaddress":                 "networking.ip",
	"ipaddress6":                "networking.ip6",
	"macaddress":                "networking.mac",
	"netmask":                   "networking.netmask",
	"netmask6":                  "networking.netmask6",
	"network":                   "networking.network",
	"network6":                  "networking.network6",
	"mtu":                       "networking.mtu",
	"interfaces":                "networking.interfaces",
	"processorcount":            "processors.count",
	"physicalprocessorcount":    "processors.physicalcount",
	"processor0":                "processors.models.0",
	"memorysize":                "memory.system.total",
	"memoryfree":                "memory.system.available",
	"memorysize_mb":             "memory.system.total_bytes",
	"memoryfree_mb":             "memory.system.available_bytes",
	"swapsize":                  "memory.swap.total",
	"swapfree":                  "memory.swap.available",
	"uptime":                    "system_uptime.uptime",
	"uptime_seconds":            "system_uptime.seconds",
	"uptime_hours":              "system_uptime.hours",
	"uptime_days":               "system_uptime.days",
	"manufacturer":              "dmi.manufacturer",
	"productname":               "dmi.product.name",
	"serialnumber":              "dmi.product.serial_number",
	"uuid":                      "dmi.product.uuid",
	"boardmanufacturer":         "dmi.board.manufacturer",
	"boardproductname":          "dmi.board.product",
	"boardserialnumber":         "dmi.board.serial_number",
	"bios_vendor":               "dmi.bios.vendor",
	"bios_version":              "dmi.bios.version",
	"bios_release_date":         "dmi.bios.release_date",
	"chassistype":               "dmi.chassis.type",
	"rubyversion":               "ruby.version",
	"rubyplatform":              "ruby.platform",
	"rubysitedir":               "ruby.sitedir",
	"zonename":                  "solaris_zones.current",
	"sshrsakey":                 "ssh.rsa.key",
	"sshecdsakey":               "ssh.ecdsa.key",
	"sshed25519key":             "ssh.ed25519.key",
	"sshfp_rsa":                 "ssh.rsa.fingerprints.sha1",
	"sshfp_ecdsa":               "ssh.ecdsa.fingerprints.sha1",
	"sshfp_ed25519":             "ssh.ed25519.fingerprints.sha1",
}

// aliasTable merges overrides onto the built-in legacy table. An empty path
// in overrides removes the alias.
func aliasTable(overrides map[string]string) map[string]string {
	table := maps.Clone(LegacyAliases)
	for name, path := range overrides {
		if path == "" {
			delete(table, name)
			continue
		}
		table[name] = path
	}
	return table
}

// flattenLegacy adds a top-level entry for every alias whose structured
// path resolves in m. Existing top-level keys are never overwritten and
// structured entries are kept. It returns the names that were added.
func flattenLegacy(m Mapping, aliases map[string]string) []string {
	var added []string
	for name, path := range aliases {
		if _, exists := m[name]; exists {
			continue
		}
		if v, ok := resolvePath(m, path); ok {
			m[name] = v
			added = append(added, name)
		}
	}
	return added
}

// resolvePath walks a dotted path through nested maps. Numeric segments
// index into lists.
func resolvePath(m Mapping, path string) (Value, bool) {
	head, rest, nested := strings.Cut(path, ".")
	v, ok := m[head]
	if !ok {
		return Value{}, false
	}
	for nested {
		var seg string
		seg, rest, nested = strings.Cut(rest, ".")
		switch v.kind {
		case KindMap:
			v, ok = v.m[seg]
		case KindList:
			v, ok = listIndex(v.list, seg)
		default:
			ok = false
		}
		if !ok {
			return Value{}, false
		}
	}
	return v, true
}

func listIndex(items []Value, seg string) (Value, bool) {
	idx := 0
	if seg == "" {
		return Value{}, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return Value{}, false
		}
		idx = idx*10 + int(r-'0')
		if idx >= len(items) {
			return Value{}, false
		}
	}
	return items[idx], true
}
