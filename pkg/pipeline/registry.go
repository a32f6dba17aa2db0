package pipeline

import (
	"github.com/directional-star/diggit/pkg/reporter"
	"github.com/directional-star/diggit/pkg/reporters/changepatterns"
	"github.com/directional-star/diggit/pkg/reporters/complexity"
	"github.com/directional-star/diggit/pkg/reporters/refactordiligence"
)

// DefaultReporters returns every analysis in the order it runs. New analyses
// are registered here. minerWorkers bounds itemset mining parallelism; zero
// uses GOMAXPROCS.
func DefaultReporters(minerWorkers int) []reporter.Reporter {
	return []reporter.Reporter{
		changepatterns.New(changepatterns.WithWorkers(minerWorkers)),
		complexity.New(),
		refactordiligence.New(),
	}
}
