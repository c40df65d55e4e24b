// Package check contains the stages of the mailscore pipeline: the syntax
// matcher, the static classifiers, the MX resolver and the scoring policy.
// These types can be used directly, but the recommended approach is
// to use the Validator from the github.com/optimode/mailscore package.
package check
