package main

import (
	"fmt"
	"io"
)

func printInfo(w io.Writer, msg string) {
	fmt.Fprintf(w, "\033[0;34m[INFO]\033[0m %s\n", msg)
}

func printWarn(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s[WARN]%s %s\n", colorYellow, colorReset, msg)
}

func printError(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}
