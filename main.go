// =============================================================================
// Webshop Sales Report - Main Entry Point
// =============================================================================
//
// USAGE:
//   salesreport process     - Report every export in the input directory
//   salesreport fetch       - Report orders fetched from the webshop API
//   salesreport validate    - Check configuration and exports
//   salesreport history     - List stored reports
//   salesreport version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Realigner, segmenter, normalizer, aggregator, merger
//                      and the readers, writers and stores around them
//   - pkg/utils      : File discovery, archiving and summary logs
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/webshop-sales-report/cmd"
)

func main() {
	cmd.Execute()
}
