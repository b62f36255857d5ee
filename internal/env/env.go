// Package env reports which environment the service runs in.
package env

import "os"

type Environment string

const (
	Local      Environment = "local"
	Production Environment = "production"

	Key string = "ENV"
)

// Current answers the environment named by the ENV variable,
// falling back to Local for anything unrecognized.
func Current() Environment {
	e := Environment(os.Getenv(Key))
	switch e {
	case Local, Production:
		return e
	}
	return Local
}

func IsProduction() bool {
	return Current() == Production
}
