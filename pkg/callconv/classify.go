package callconv

import (
	"fmt"
	"sync"

	"github.com/raymyers/ralph-abi/pkg/cabi"
)

// planCache memoizes plans per (convention, descriptor shape). Plans are
// pure functions of their key, so a lost race only recomputes a plan.
var planCache sync.Map

type cacheKey struct {
	conv cabi.Convention
	key  string
}

// Classify computes the register/stack assignment of a call described by d
// under convention conv. Structurally identical descriptors yield identical
// assignments. The returned plan carries d and its types but shares its
// slots with other callers, so it must not be modified.
func Classify(conv cabi.Convention, d Descriptor) (*Plan, error) {
	if !conv.Valid() {
		return nil, fmt.Errorf("%w: unknown convention %v", ErrInvalidCallShape, conv)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	k := cacheKey{conv: conv, key: d.Key()}
	p, ok := planCache.Load(k)
	if !ok {
		p, _ = planCache.LoadOrStore(k, classify(conv, d))
	}
	return p.(*Plan).withDescriptor(d), nil
}

// withDescriptor returns a shallow copy of p describing d, which must have
// the same shape as p's own descriptor
func (p *Plan) withDescriptor(d Descriptor) *Plan {
	cp := *p
	cp.Descriptor = d
	cp.Args = make([]Assignment, len(p.Args))
	for i, a := range p.Args {
		a.Type = d.Args[i]
		cp.Args[i] = a
	}
	if p.Return != nil {
		ret := *p.Return
		ret.Type = d.Return
		cp.Return = &ret
	}
	return &cp
}

// MustClassify is like Classify but panics on an invalid descriptor
func MustClassify(conv cabi.Convention, d Descriptor) *Plan {
	p, err := Classify(conv, d)
	if err != nil {
		panic(err)
	}
	return p
}

func classify(conv cabi.Convention, d Descriptor) *Plan {
	plan := &Plan{Convention: conv, Descriptor: d}
	switch conv {
	case cabi.SysV:
		classifySysV(plan)
	case cabi.Win64:
		classifyWin64(plan)
	case cabi.LinuxAArch64, cabi.MacOSAArch64, cabi.WindowsAArch64:
		classifyAArch64(plan)
	case cabi.LinuxRISCV64:
		classifyRISCV64(plan)
	case cabi.SysVPPC64LE, cabi.AIXPPC64:
		classifyPPC64(plan)
	case cabi.SysVS390x:
		classifyS390x(plan)
	default:
		panic("unhandled convention " + conv.String())
	}
	return plan
}
