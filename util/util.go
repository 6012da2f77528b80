package util

import (
	"io"
	"os/exec"
	"strconv"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"

	"github.com/olekukonko/tablewriter"
)

// PrintTableOfDeployments writes the given deployments to writer as an
// ASCII table, the shape `testbedos deployment list` shows an operator.
func PrintTableOfDeployments(writer io.Writer, deployments types.Deployments) error {
	table := tablewriter.NewWriter(writer)

	table.SetHeader([]string{"Name", "State", "Project Location", "Failed Command"})

	for _, d := range deployments {
		table.Append([]string{d.Name, string(d.State), d.ProjectLocation, d.FailedCommand})
	}

	table.Render()

	return nil
}

// PrintTableOfHosts writes the given cluster hosts to writer as an ASCII
// table.
func PrintTableOfHosts(writer io.Writer, hosts types.ClusterHosts) error {
	table := tablewriter.NewWriter(writer)

	table.SetHeader([]string{"Name", "IP", "Username", "NIC", "Master", "Schedulable", "Guest Commit"})

	for _, h := range hosts {
		table.Append([]string{
			h.Name,
			h.IP,
			h.Username,
			h.TestbedNIC,
			strconv.FormatBool(h.IsMasterHost),
			strconv.FormatBool(h.Schedulable),
			strconv.Itoa(h.GuestCommit),
		})
	}

	table.Render()

	return nil
}

func ShellCommandExists(cmd string) bool {
	err := exec.Command("which", cmd).Run()
	return err == nil
}
