package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/eli0s78/Universal-Academic-Workflow/core/workflow"
	"github.com/eli0s78/Universal-Academic-Workflow/providers/protocol"
)

const (
	// chunkSizeThreshold is the source-text size above which a document is
	// split into chunk-level extraction sub-calls.
	chunkSizeThreshold = 20000

	// extractBatchSize bounds how many extraction sub-calls run concurrently,
	// to respect external provider rate limits.
	extractBatchSize = 3
)

// scopeDescriptor summarizes what the node is about, so extraction reads the
// sources through the project's lens instead of producing a generic summary.
func scopeDescriptor(config workflow.Config) string {
	var parts []string
	if config.Title != "" {
		parts = append(parts, "Project: "+config.Title)
	}
	if config.Subtitle != "" {
		parts = append(parts, "Focus: "+config.Subtitle)
	}
	if config.Outline != "" {
		parts = append(parts, "Outline:\n"+config.Outline)
	}
	return strings.Join(parts, "\n")
}

// digestJob is one extraction sub-call: a single chunk of a single document.
type digestJob struct {
	fileName   string
	chunkIndex int
	chunkCount int
	content    string
}

// digestFiles runs the extraction capability over the given source documents,
// splitting oversized documents into chunks executed with bounded
// concurrency. Chunk outputs are concatenated in document order under
// per-document headers; usage accumulates across every sub-call.
func digestFiles(ctx context.Context, extractor protocol.Extractor, files []protocol.File, scope protocol.Scope, depth protocol.Depth) (string, protocol.Usage, error) {
	jobs := buildDigestJobs(files)
	if len(jobs) == 0 {
		return "", protocol.Usage{}, nil
	}

	results := make([]string, len(jobs))
	errorChannel := make(chan error, len(jobs))
	semaphore := make(chan struct{}, extractBatchSize)

	var usageMu sync.Mutex
	var totalUsage protocol.Usage

	jobContext, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	var waitGroup sync.WaitGroup
	for jobIndex, job := range jobs {
		waitGroup.Add(1)

		go func(resultIndex int, currentJob digestJob) {
			defer waitGroup.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-jobContext.Done():
				return
			}

			extracted, err := extractor.Extract(jobContext, protocol.ExtractRequest{
				Files: []protocol.File{{Name: currentJob.fileName, Content: currentJob.content}},
				Scope: scope,
				Depth: depth,
			})
			if err != nil {
				errorChannel <- fmt.Errorf("extracting %q (part %d/%d): %w",
					currentJob.fileName, currentJob.chunkIndex+1, currentJob.chunkCount, err)
				cancelJobs()
				return
			}

			usageMu.Lock()
			totalUsage.Add(extracted.Usage)
			usageMu.Unlock()

			results[resultIndex] = extracted.Text
		}(jobIndex, job)
	}

	waitGroup.Wait()
	close(errorChannel)

	if err := <-errorChannel; err != nil {
		return "", totalUsage, err
	}
	if err := ctx.Err(); err != nil {
		return "", totalUsage, err
	}

	return assembleDigest(jobs, results), totalUsage, nil
}

// buildDigestJobs splits each file into one job per chunk. Chunks are cut at
// the last paragraph break inside the threshold when one exists.
func buildDigestJobs(files []protocol.File) []digestJob {
	jobs := make([]digestJob, 0, len(files))

	for _, file := range files {
		if file.Content == "" {
			continue
		}
		chunks := splitChunks(file.Content, chunkSizeThreshold)
		for chunkIndex, chunk := range chunks {
			jobs = append(jobs, digestJob{
				fileName:   file.Name,
				chunkIndex: chunkIndex,
				chunkCount: len(chunks),
				content:    chunk,
			})
		}
	}
	return jobs
}

func splitChunks(content string, maxSize int) []string {
	if len(content) <= maxSize {
		return []string{content}
	}

	var chunks []string
	remaining := content
	for len(remaining) > maxSize {
		cut := maxSize
		// Prefer cutting at a paragraph break in the back half of the chunk.
		for offset := maxSize; offset > maxSize/2; offset-- {
			if remaining[offset-1] == '\n' {
				cut = offset
				break
			}
		}
		chunks = append(chunks, remaining[:cut])
		remaining = remaining[cut:]
	}
	if len(remaining) > 0 {
		chunks = append(chunks, remaining)
	}
	return chunks
}

// assembleDigest concatenates chunk outputs in job order under per-document
// headers.
func assembleDigest(jobs []digestJob, results []string) string {
	var builder []byte
	currentFile := ""

	for jobIndex, job := range jobs {
		if results[jobIndex] == "" {
			continue
		}
		if job.fileName != currentFile {
			if len(builder) > 0 {
				builder = append(builder, "\n\n"...)
			}
			builder = append(builder, fmt.Sprintf("## Source: %s\n\n", job.fileName)...)
			currentFile = job.fileName
		} else {
			builder = append(builder, "\n\n"...)
		}
		builder = append(builder, results[jobIndex]...)
	}
	return string(builder)
}
