// Command lambdapool runs demonstration workloads on a bounded worker pool.
//
//	lambdapool many-jobs --jobs 20 --seed 42
//	lambdapool callable --work 2s
//	lambdapool runnable
//	lambdapool mapreduce
//	lambdapool wordcount --file book.txt --workers 4 --output json
//
// Every flag can also be set from a YAML file (--config) or a LAMBDAPOOL_ environment
// variable, e.g. LAMBDAPOOL_RETRY_MAX_ATTEMPTS=3.
package main

import (
	"os"

	"github.com/utkarsh5026/lambdapool/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
