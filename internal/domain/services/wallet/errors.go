package wallet

import "errors"

var (
	errEmptyCreation  = errors.New("custody service created no wallets")
	errEmptyWalletSet = errors.New("custody service returned no wallet set id")
)
