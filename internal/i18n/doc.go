// ABOUTME: Package i18n selects the console display language
// ABOUTME: Preferences persist in the credential store under the language key

// Package i18n resolves the console language from a saved preference or the
// environment's locale, limited to the languages the console ships.
package i18n
