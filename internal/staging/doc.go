// Package staging reclaims session directories that earlier bayloe runs left
// under paths.staging_dir after a crash or kill.
package staging
