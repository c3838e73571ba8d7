package sale

import (
	"sync"
)

// LabelSubtype selects the Endicia label variant.
type LabelSubtype string

const (
	LabelSubtypeNone       LabelSubtype = "None"
	LabelSubtypeIntegrated LabelSubtype = "Integrated"
)

// IntegratedFormType selects the customs form printed on integrated labels.
type IntegratedFormType string

const (
	FormNone  IntegratedFormType = ""
	Form2976  IntegratedFormType = "Form2976"  // same as CN22
	Form2976A IntegratedFormType = "Form2976A" // same as CP72
)

// PackageType describes the package content declared to Endicia.
type PackageType string

const (
	PackageDocuments   PackageType = "Documents"
	PackageGift        PackageType = "Gift"
	PackageMerchandise PackageType = "Merchandise"
	PackageOther       PackageType = "Other"
	PackageSample      PackageType = "Sample"
)

// PackageTypes lists the package content types Endicia accepts.
var PackageTypes = []PackageType{
	PackageDocuments,
	PackageGift,
	PackageMerchandise,
	PackageOther,
	PackageSample,
}

// Configuration is the sale configuration record. There is one per
// process; new orders read their defaults from it.
type Configuration struct {
	// DefaultMailClass is preselected on new orders, nil when unset.
	DefaultMailClass *MailClass
	LabelSubtype     LabelSubtype
	IntegratedForm   IntegratedFormType
	PackageType      PackageType
	IncludePostage   bool
	// MailClasses is the full set of configured mail classes, in the
	// order rate shopping iterates them.
	MailClasses []MailClass
}

// DefaultConfiguration returns a configuration with the defaults Endicia
// documents for label subtype and package content type.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		LabelSubtype:   LabelSubtypeNone,
		IntegratedForm: FormNone,
		PackageType:    PackageOther,
	}
}

// MailClassByValue resolves a configured mail class by its wire value.
func (c *Configuration) MailClassByValue(value string) (*MailClass, bool) {
	for i := range c.MailClasses {
		if c.MailClasses[i].Value == value {
			return &c.MailClasses[i], true
		}
	}
	return nil, false
}

var (
	configMu sync.RWMutex
	config   = DefaultConfiguration()
)

// Config returns the process-wide sale configuration.
func Config() *Configuration {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}

// SetConfig replaces the process-wide sale configuration.
func SetConfig(c *Configuration) {
	configMu.Lock()
	defer configMu.Unlock()
	if c == nil {
		c = DefaultConfiguration()
	}
	config = c
}

// NewOrder creates a draft order with defaults from the configuration.
func NewOrder(id, currency string, carrier *Carrier) *Order {
	return &Order{
		ID:        id,
		State:     StateDraft,
		Currency:  currency,
		Carrier:   carrier,
		MailClass: Config().DefaultMailClass,
	}
}
