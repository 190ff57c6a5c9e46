// Package publishing hands finalized pages to the deploy collaborator.
//
// The webhook deployer posts the page and SEO elements as JSON to a build hook
// and interprets only the returned status. The file deployer renders a static
// HTML page into the publish directory. Deployment is the one stage that is
// unsafe to retry automatically, so any failure leaves the item failed until
// an operator retries it.
package publishing
