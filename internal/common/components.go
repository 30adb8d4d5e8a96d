package common

const (
	ComponentScanner     = "scanner"
	ComponentChainSource = "chain-source"
	ComponentScanStore   = "scan-store"
	ComponentColorEngine = "color-engine"
	ComponentMaintenance = "maintenance"
	ComponentAPI         = "api"
	ComponentProgress    = "progress"
)

var AllComponents = map[string]struct{}{
	ComponentScanner:     {},
	ComponentChainSource: {},
	ComponentScanStore:   {},
	ComponentColorEngine: {},
	ComponentMaintenance: {},
	ComponentAPI:         {},
	ComponentProgress:    {},
}
