package types

// AppFlag is the capability bitmask stored with an application.
type AppFlag uint32

// Application flags. Creation flags are fixed for the life of an
// application; only FlagEnabled is changed afterwards.
const (
	FlagEnabled       AppFlag = 1 << 1
	FlagConfigStore   AppFlag = 1 << 4
	FlagAllowExternal AppFlag = 1 << 6
	FlagAllowLocal    AppFlag = 1 << 8
)

// Has reports whether every bit of other is set in f.
func (f AppFlag) Has(other AppFlag) bool {
	return f&other == other
}

// FieldFlag is the per-field attribute set declared with a field.
type FieldFlag uint32

// FieldMasked asks the store to obscure the field's value.
const FieldMasked FieldFlag = 1

// ReadMode selects how GetConfigInfo resolves stored properties.
type ReadMode int

// Read modes accepted by the store.
const (
	ReadModeRuntime ReadMode = iota + 1
	ReadModeConfigStore
)

func (m ReadMode) String() string {
	switch m {
	case ReadModeRuntime:
		return "runtime"
	case ReadModeConfigStore:
		return "config-store"
	default:
		return "unknown"
	}
}

// Identifiers under which property bags are stored. Both currently name the
// same location; they are kept apart so the read fallback chain can diverge
// once a store is found that stores them separately.
const (
	IdentifierConfigProperties = "ConfigProperties"
	IdentifierApplication      = "ConfigProperties"
)

// ApplicationSpec is the caller-supplied metadata for a new application.
type ApplicationSpec struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ContactInfo  string `json:"contact_info"`
	UserAccount  string `json:"user_account"`
	AdminAccount string `json:"admin_account"`
}

// ApplicationInfo is the metadata the store reports for an application.
type ApplicationInfo struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	ContactInfo  string  `json:"contact_info"`
	UserAccount  string  `json:"user_account"`
	AdminAccount string  `json:"admin_account"`
	Flags        AppFlag `json:"flags"`
	FieldCount   int     `json:"field_count"`
}

// Spec returns the creation metadata captured in info.
func (i ApplicationInfo) Spec() ApplicationSpec {
	return ApplicationSpec{
		Name:         i.Name,
		Description:  i.Description,
		ContactInfo:  i.ContactInfo,
		UserAccount:  i.UserAccount,
		AdminAccount: i.AdminAccount,
	}
}

// ApplicationSummary is one row of an application enumeration.
type ApplicationSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ContactInfo string `json:"contact_info"`
}

// Application is an application's metadata together with its properties.
type Application struct {
	ApplicationInfo
	Properties *PropertyBag `json:"properties"`
}
