package session

// credentialSeedLength is how many leading characters of the email seed the
// provisioning credentials.
const credentialSeedLength = 4

// Credentials are the username and password a provider-originated account is
// registered and logged in with.
type Credentials struct {
	Username string
	Password string
}

// DeriveCredentials derives the provisioning credentials for email. The same
// email and secret always yield the same credentials, which makes a repeated
// provisioning attempt land on the fallback login.
func DeriveCredentials(email, secret string) Credentials {
	seed := []rune(email)
	if len(seed) > credentialSeedLength {
		seed = seed[:credentialSeedLength]
	}
	return Credentials{
		Username: string(seed),
		Password: string(seed) + secret,
	}
}
