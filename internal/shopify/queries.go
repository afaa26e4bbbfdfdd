package shopify

const metaobjectSelection = `
      id
      handle
      fields { key value }
      capabilities { publishable { status } }
`

const upsertMutation = `
mutation MetaobjectUpsert($handle: MetaobjectHandleInput!, $metaobject: MetaobjectUpsertInput!) {
  metaobjectUpsert(handle: $handle, metaobject: $metaobject) {
    metaobject {` + metaobjectSelection + `    }
    userErrors { field message code }
  }
}
`

const updateMutation = `
mutation MetaobjectUpdate($id: ID!, $metaobject: MetaobjectUpdateInput!) {
  metaobjectUpdate(id: $id, metaobject: $metaobject) {
    metaobject {` + metaobjectSelection + `    }
    userErrors { field message code }
  }
}
`

const listQuery = `
query ListMetaobjects($type: String!, $first: Int!) {
  metaobjects(type: $type, first: $first) {
    nodes {` + metaobjectSelection + `    }
  }
}
`
