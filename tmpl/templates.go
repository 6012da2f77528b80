package tmpl

// domainXMLTemplate renders a libvirt domain definition from the fields
// GenerateArtefacts fills in for a guest: GuestName, VCPU, Memory (MiB),
// DiskDriver, DiskPath, CloudInitISO (omitted when empty), Interfaces (each
// with Tap and Mac), ExtendedGraphicsSupport, and BackingImageNetwork
// (the temporary install network's name for every golden image's domain,
// empty for every other guest).
const domainXMLTemplate = `<domain type='kvm'>
  <name>{{.GuestName}}</name>
  <memory unit='MiB'>{{.Memory}}</memory>
  <vcpu placement='static'>{{.VCPU}}</vcpu>
  <os>
    <type arch='x86_64' machine='pc-q35'>hvm</type>
    <boot dev='hd'/>
  </os>
  <features>
    <acpi/>
    <apic/>
  </features>
  <cpu mode='host-passthrough'/>
  <devices>
    <disk type='file' device='disk'>
      <driver name='qemu' type='{{.DiskDriver}}'/>
      <source file='{{.DiskPath}}'/>
      <target dev='vda' bus='virtio'/>
    </disk>
{{- if .CloudInitISO}}
    <disk type='file' device='cdrom'>
      <driver name='qemu' type='raw'/>
      <source file='{{.CloudInitISO}}'/>
      <target dev='sda' bus='sata'/>
      <readonly/>
    </disk>
{{- end}}
{{- if .BackingImageNetwork}}
    <interface type='network'>
      <source network='{{.BackingImageNetwork}}'/>
      <model type='virtio'/>
    </interface>
{{- else}}
{{- range .Interfaces}}
    <interface type='ethernet'>
      <target dev='{{.Tap}}' managed='no'/>
      <mac address='{{.Mac}}'/>
      <model type='virtio'/>
    </interface>
{{- end}}
{{- end}}
    <console type='pty'>
      <target type='serial' port='0'/>
    </console>
{{- if .ExtendedGraphicsSupport}}
    <graphics type='vnc' autoport='yes' listen='0.0.0.0'/>
    <video>
      <model type='qxl' ram='65536' vram='65536' vgamem='16384' heads='1'/>
    </video>
{{- else}}
    <graphics type='vnc' autoport='yes' listen='0.0.0.0'/>
    <video>
      <model type='cirrus' vram='9216' heads='1'/>
    </video>
{{- end}}
  </devices>
</domain>
`

// networkXMLTemplate renders the isolated libvirt network a golden image's
// shared setup script boots inside, named "<project>-testbedos" per guest
// deployment. Fields: Name, Bridge.
const networkXMLTemplate = `<network>
  <name>{{.Name}}</name>
  <bridge name='{{.Bridge}}' stp='on' delay='0'/>
</network>
`

// metaDataTemplate is the cloud-init meta-data seed. Fields: InstanceID,
// Hostname.
const metaDataTemplate = `instance-id: {{.InstanceID}}
local-hostname: {{.Hostname}}
`

// userDataTemplate is the cloud-init user-data seed. Fields: Hostname,
// Username, SSHAuthorizedKey, RunCmds ([]string, may be empty).
const userDataTemplate = `#cloud-config
hostname: {{.Hostname}}
manage_etc_hosts: true
users:
  - name: {{.Username}}
    sudo: ALL=(ALL) NOPASSWD:ALL
    shell: /bin/bash
    ssh_authorized_keys:
      - {{.SSHAuthorizedKey}}
{{- if .RunCmds}}
runcmd:
{{- range .RunCmds}}
  - {{.}}
{{- end}}
{{- end}}
`

// networkConfigTemplate is the cloud-init network-config seed (version 2).
// Fields: MacAddress, DHCP (bool), IPAddress, Gateway, Nameservers
// ([]string) — IPAddress/Gateway are only read when DHCP is false.
const networkConfigTemplate = `version: 2
ethernets:
  eth0:
    match:
      macaddress: {{.MacAddress}}
    set-name: eth0
{{- if .DHCP}}
    dhcp4: true
{{- else}}
    dhcp4: false
    addresses: [{{.IPAddress}}]
    gateway4: {{.Gateway}}
{{- if .Nameservers}}
    nameservers:
      addresses: [{{range $i, $ns := .Nameservers}}{{if $i}}, {{end}}{{$ns}}{{end}}]
{{- end}}
{{- end}}
`
