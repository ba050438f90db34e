package scenario

import (
	"fmt"

	"conductor/internal/binding"
	"conductor/internal/config"
)

// CheckEnvironment returns a non-empty skip reason when the scenario cannot
// run on this host: the target is bare-metal, a declared service needs
// Linux containers there, and linuxContainers reports none are available.
// Fields no binding claims are left for BeforeAll to report.
func CheckEnvironment(target config.Target, class *Class, bindings *binding.Registry, linuxContainers func() bool) string {
	if target != config.TargetBareMetal || class == nil || bindings == nil || linuxContainers == nil {
		return ""
	}

	for _, f := range class.Fields() {
		if f.Kind != FieldService {
			continue
		}
		b, err := bindings.Resolve(binding.Field{Name: f.Name, Declaration: f.Declaration})
		if err != nil || !b.RequiresLinuxContainersOnBareMetal() {
			continue
		}
		if !linuxContainers() {
			return fmt.Sprintf("service %s of scenario %s needs Linux containers, which are not available on this host", f.Name, class.Name)
		}
	}
	return ""
}

// CheckEnvironment applies the package level check with the orchestrator's
// configuration.
func (o *Orchestrator) CheckEnvironment(class *Class) string {
	return CheckEnvironment(o.cfg.Target, class, o.bindings, o.opts.LinuxContainers)
}
