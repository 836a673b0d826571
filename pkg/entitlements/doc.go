// Package entitlements resolves what a plan allows: the pure lookup
// (ownerClass, plan) -> PlanEntitlements.
//
// Entitlements are configuration, not account state. They are loaded once from
// a Source and resolved per request:
//
//	src, err := entitlements.LoadYAML("entitlements.yaml")
//	catalog, err := entitlements.NewCatalog(ctx, src)
//
//	ent, err := catalog.Resolve(meter.ClassUser, "pro")
//
// NewFileSource re-reads its file on every load. Catalog.Reload swaps in a new
// configuration only if it validates, and Watch calls Reload when the file
// changes on disk.
//
// An empty or unknown plan falls back to the owner class default plan, so a
// guest without a plan still resolves to the guest tier. A limit of Unlimited
// (-1) disables the corresponding check.
//
// The YAML layout is:
//
//	defaults:
//	  user: free
//	  guest: guest
//	plans:
//	  user:
//	    free:
//	      daily_burst_cap: 20
//	      monthly_allowance: 100
//	      monthly_credits_tenths: 500
//	      max_upscale: 2
//	      face_enhance: false
//	  guest:
//	    guest:
//	      daily_burst_cap: 3
//	      monthly_allowance: 10
//	      monthly_credits_tenths: 50
//	      max_upscale: 2
package entitlements
