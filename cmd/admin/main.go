package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"round_dao/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(nil).Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
