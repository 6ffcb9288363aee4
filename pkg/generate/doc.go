// Package generate drives one generation request through its stages:
//
//	Loading → ResolvingVariables → Planning → StagingWrite →
//	CommittingPreHooks → Committed → RunningPostHooks → Done
//
// Files are first written to a staging directory next to the target. The
// target is only touched once staging and pre hooks have succeeded, so any
// failure before Committed leaves it exactly as it was. Post hook failures
// keep the generated files and mark the result partial.
package generate
