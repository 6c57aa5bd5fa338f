package execution

import (
	"fmt"
	"regexp"
)

type ClientType int8

var (
	AnyClient        ClientType
	UnknownClient    ClientType = -1
	BesuClient       ClientType = 1
	ErigonClient     ClientType = 2
	EthjsClient      ClientType = 3
	GethClient       ClientType = 4
	NethermindClient ClientType = 5
	RethClient       ClientType = 6
)

type clientTypeInfo struct {
	clientType ClientType
	name       string
	pattern    *regexp.Regexp
}

var clientTypeInfos = []clientTypeInfo{
	{BesuClient, "besu", regexp.MustCompile("(?i)^Besu/.*")},
	{ErigonClient, "erigon", regexp.MustCompile("(?i)^Erigon/.*")},
	{EthjsClient, "ethjs", regexp.MustCompile("(?i)^Ethereumjs/.*")},
	{GethClient, "geth", regexp.MustCompile("(?i)^Geth/.*")},
	{NethermindClient, "nethermind", regexp.MustCompile("(?i)^Nethermind/.*")},
	{RethClient, "reth", regexp.MustCompile("(?i)^Reth/.*")},
}

// DetectClientType maps a web3_clientVersion string to a client type
func DetectClientType(version string) ClientType {
	for _, info := range clientTypeInfos {
		if info.pattern.MatchString(version) {
			return info.clientType
		}
	}

	return UnknownClient
}

func (client *Client) parseClientVersion(version string) {
	client.statusMutex.Lock()
	defer client.statusMutex.Unlock()

	client.clientType = DetectClientType(version)
}

func ParseClientType(name string) ClientType {
	for _, info := range clientTypeInfos {
		if info.name == name {
			return info.clientType
		}
	}

	return UnknownClient
}

func (client *Client) GetClientType() ClientType {
	client.statusMutex.RLock()
	defer client.statusMutex.RUnlock()

	return client.clientType
}

func (clientType ClientType) String() string {
	for _, info := range clientTypeInfos {
		if info.clientType == clientType {
			return info.name
		}
	}

	return fmt.Sprintf("unknown: %d", clientType)
}
