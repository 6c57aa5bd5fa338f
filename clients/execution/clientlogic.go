package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/curvewatch/utils"
)

func (client *Client) runClientLoop() {
	defer utils.HandleSubroutinePanic("clients.execution.Client.runClientLoop", client.runClientLoop)

	for {
		err := client.checkClient()

		if err == nil {
			err = client.runClientLogic()
		}

		if err == nil {
			client.retryCounter = 0
			return
		}

		client.statusMutex.Lock()
		client.isOnline = false
		client.lastError = err
		client.lastEvent = time.Now()
		client.statusMutex.Unlock()

		client.retryCounter++

		waitTime := 10
		if client.retryCounter > 10 {
			waitTime = 300
		} else if client.retryCounter > 5 {
			waitTime = 60
		}

		client.logger.Warnf("execution client error: %v, retrying in %v sec...", err, waitTime)

		select {
		case <-client.clientCtx.Done():
			return
		case <-time.After(time.Duration(waitTime) * time.Second):
		}
	}
}

func (client *Client) checkClient() error {
	ctx, cancel := context.WithTimeout(client.clientCtx, 60*time.Second)
	defer cancel()

	err := client.rpcClient.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initialization of execution client failed: %w", err)
	}

	// get node version
	nodeVersion, err := client.rpcClient.GetClientVersion(ctx)
	if err != nil {
		return fmt.Errorf("error while fetching node version: %v", err)
	}

	client.statusMutex.Lock()
	client.versionStr = nodeVersion
	client.statusMutex.Unlock()
	client.parseClientVersion(nodeVersion)

	// get & compare chain specs
	specs, err := client.rpcClient.GetChainSpec(ctx)
	if err != nil {
		return fmt.Errorf("error while fetching specs: %v", err)
	}

	err = client.pool.chainState.SetClientSpecs(specs)
	if err != nil {
		return fmt.Errorf("invalid node specs: %v", err)
	}

	// check synchronization state
	isSyncing, err := client.rpcClient.IsSyncing(ctx)
	if err != nil {
		return fmt.Errorf("error while fetching synchronization status: %v", err)
	}

	client.statusMutex.Lock()
	client.isSyncing = isSyncing
	client.statusMutex.Unlock()

	return nil
}

func (client *Client) runClientLogic() error {
	// get latest header
	err := client.pollClientHead()
	if err != nil {
		return err
	}

	// check sync status
	if client.GetStatus() == ClientStatusSynchronizing {
		return fmt.Errorf("execution client is synchronizing")
	}

	client.setOnline(true)
	client.logger.Infof("execution client online: %v", client.GetVersion())

	pollInterval := client.pool.config.HeadPollInterval
	if pollInterval == 0 {
		pollInterval = 12 * time.Second
	}

	for {
		pollTimeout := time.Since(client.GetLastEventTime())
		if pollTimeout > pollInterval {
			pollTimeout = 0
		} else {
			pollTimeout = pollInterval - pollTimeout
		}

		select {
		case <-client.clientCtx.Done():
			return nil
		case <-time.After(pollTimeout):
			err := client.pollClientHead()
			if err != nil {
				client.setOnline(false)
				return err
			}

			client.setOnline(true)
		}
	}
}

func (client *Client) pollClientHead() error {
	ctx, cancel := context.WithTimeout(client.clientCtx, 10*time.Second)
	defer cancel()

	latestHeader, err := client.rpcClient.GetLatestHeader(ctx)
	if err != nil {
		return fmt.Errorf("could not get latest header: %v", err)
	}

	if latestHeader == nil {
		return fmt.Errorf("could not find latest header")
	}

	client.headMutex.Lock()
	defer client.headMutex.Unlock()

	client.headNumber = latestHeader.Number.Uint64()
	client.headHash = latestHeader.Hash()

	return nil
}
