package bootloader

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/moffa90/go-ymboot/protocol"
)

// DeviceFamily identifies a line of devices sharing a bootloader build.
type DeviceFamily string

// Supported device families.
const (
	FamilyNova  DeviceFamily = "nova"
	FamilyAtlas DeviceFamily = "atlas"
	FamilyOrion DeviceFamily = "orion"
	FamilyVega  DeviceFamily = "vega"
)

// Profile describes how to talk to the bootloader of one device family.
// Profiles are values; modifying a copy does not affect the table.
type Profile struct {
	Family DeviceFamily

	// Name is the human-readable product name
	Name string

	// Target is the firmware build target the bootloader accepts
	Target string

	// FlashOffset is where the application image is written
	FlashOffset uint32

	// SimpleTransfer bootloaders need the "ymodem" argument on receive
	// commands
	SimpleTransfer bool

	// Commands is the accepted command set, an ordered prefix of
	// protocol.AllCommands
	Commands []string

	// SetupTimeout bounds the wait for the setup frame acknowledgement
	SetupTimeout time.Duration

	// ApplyTimeout bounds applying an upgrade
	ApplyTimeout time.Duration

	// AlwaysApply bootloaders apply every upgrade immediately and have no
	// separate flash step
	AlwaysApply bool
}

// commandPrefix copies the first n commands so the table never aliases
// protocol.AllCommands.
func commandPrefix(n int) []string {
	return append([]string(nil), protocol.AllCommands[:n]...)
}

var profiles = map[DeviceFamily]Profile{
	FamilyNova: {
		Family:       FamilyNova,
		Name:         "Nova Sensor Hub",
		Target:       "nova_hub",
		FlashOffset:  0x08010000,
		Commands:     commandPrefix(len(protocol.AllCommands)),
		SetupTimeout: 15 * time.Second,
		ApplyTimeout: 60 * time.Second,
	},
	FamilyAtlas: {
		Family:       FamilyAtlas,
		Name:         "Atlas Gateway",
		Target:       "atlas_gw",
		FlashOffset:  0x08020000,
		Commands:     commandPrefix(len(protocol.AllCommands)),
		SetupTimeout: 20 * time.Second,
		ApplyTimeout: 90 * time.Second,
	},
	FamilyOrion: {
		Family:       FamilyOrion,
		Name:         "Orion Radio Module",
		Target:       "orion_radio",
		FlashOffset:  0x00010000,
		Commands:     commandPrefix(len(protocol.AllCommands)),
		SetupTimeout: 30 * time.Second,
		ApplyTimeout: 120 * time.Second,
	},
	FamilyVega: {
		Family:         FamilyVega,
		Name:           "Vega Legacy Node",
		Target:         "vega_node",
		FlashOffset:    0x00004000,
		SimpleTransfer: true,
		Commands:       commandPrefix(7),
		SetupTimeout:   30 * time.Second,
		ApplyTimeout:   45 * time.Second,
		AlwaysApply:    true,
	},
}

// LookupProfile returns the profile of a device family.
func LookupProfile(family DeviceFamily) (Profile, error) {
	p, ok := profiles[family]
	if !ok {
		return Profile{}, &UnknownFamilyError{Family: string(family)}
	}
	p.Commands = append([]string(nil), p.Commands...)
	return p, nil
}

// ParseFamily resolves a family name, ignoring case and surrounding space.
func ParseFamily(s string) (DeviceFamily, error) {
	family := DeviceFamily(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := profiles[family]; !ok {
		return "", &UnknownFamilyError{Family: s}
	}
	return family, nil
}

// Families returns every supported family, sorted.
func Families() []DeviceFamily {
	families := make([]DeviceFamily, 0, len(profiles))
	for f := range profiles {
		families = append(families, f)
	}
	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })
	return families
}

// Supports reports whether the bootloader accepts command.
func (p Profile) Supports(command string) bool {
	for _, c := range p.Commands {
		if c == command {
			return true
		}
	}
	return false
}

func (p Profile) String() string {
	return fmt.Sprintf("%s (%s, target %s, offset 0x%08X)", p.Name, p.Family, p.Target, p.FlashOffset)
}
